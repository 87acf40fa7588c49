// Package sample defines the record shape of simulation output and the
// text parsing rules shared by every apparatus.
//
// The data source delivers every channel as text. Timestamps are parsed into
// exact decimals so that differences between consecutive samples carry no
// binary rounding error; channel values are parsed into float64.
package sample
