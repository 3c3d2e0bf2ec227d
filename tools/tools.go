//go:build tools
// +build tools

// Package tools pins the versions of command-line tools this module's
// Makefile shells out to, so `go mod tidy` keeps them in go.sum without
// letting them leak into the production import graph.
package tools

import (
	_ "github.com/axw/gocov/gocov"
	_ "github.com/matm/gocov-html"
	_ "github.com/mitchellh/gox"
	_ "golang.org/x/lint/golint"
)
