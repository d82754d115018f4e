package main

import (
	"path/filepath"
	"strings"

	"github.com/aretw0/stepgraph/internal/compiler"
)

// graphFile holds a parsed definition file and the name it goes by.
type graphFile struct {
	Name string
	Doc  compiler.Document
}

func readGraphFile(path string) (graphFile, error) {
	doc, err := compiler.ParseFile(path)
	if err != nil {
		return graphFile{}, err
	}
	name := doc.Name
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return graphFile{Name: name, Doc: doc}, nil
}
