// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// RiverVertexShader places river ribbon vertices in the top-down frame.
//
//go:embed river.vert
var RiverVertexShader string

// RiverFragmentShader tints the river pattern with premultiplied blue.
//
//go:embed river.frag
var RiverFragmentShader string

// LandVertexShader places quad mesh vertices in the top-down frame and
// derives the river texture coordinate.
//
//go:embed land.vert
var LandVertexShader string

// LandFragmentShader encodes elevation, carving river channels.
//
//go:embed land.frag
var LandFragmentShader string
