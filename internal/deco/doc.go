// Package deco implements the Bühlmann ZH-L16 decompression model used to
// track inert gas loading in the body's tissue compartments and derive a
// no-decompression limit (NDL) from it.
//
// All pressures are in bar, all times in minutes and all depths in metres of
// sea water (10 m per bar). The model is not safe for concurrent use; the
// sampling loop that owns it must serialize Reset, Update and NDL.
package deco
