// Package render holds static renderers for traffic layouts.
//
// The [nodelink] subpackage turns a settled [layout.Frame] into Graphviz
// DOT and renders it to SVG or PNG.
//
// [nodelink]: github.com/matzehuels/flowscope/pkg/render/nodelink
// [layout.Frame]: github.com/matzehuels/flowscope/pkg/layout.Frame
package render
