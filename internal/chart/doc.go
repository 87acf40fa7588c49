// Package chart lays out multi-series line charts as flat lists of visual
// primitives.
//
// A [Graph] owns every primitive it draws. Connectors, axis labels and axis
// dashes are borrowed from per-kind pools and returned on each redraw, so a
// chart redrawn once per second does not churn allocations. Point markers are
// owned directly and rebuilt on every draw.
//
// Renderers (the terminal view, the SVG snapshot) never touch the pools; they
// read an immutable [Snapshot].
package chart
