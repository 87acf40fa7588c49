// Package viz rasterises chart snapshots and scene state for the terminal.
//
//   - [Canvas]: braille canvas, 2x4 dots per cell, one colour per cell
//   - [RenderChart]: a chart snapshot with axes, labels and legend
//   - [RenderScene]: the scene tree with transforms and cable curves
//   - [Plot]: static multi-series plots via asciigraph
package viz
