package core

import (
	"context"
	"net/http"
)

// WorkUnit is one language worker the editor loads in the background.
// Entry is relative to the editor package's esm tree unless it is absolute.
type WorkUnit struct {
	Label string `mapstructure:"label" json:"label"`
	Entry string `mapstructure:"entry" json:"entry"`
}

// ResolvedConfig is the host configuration captured once the host has
// resolved it. OutDir may be relative to Root.
type ResolvedConfig struct {
	Root    string
	OutDir  string
	Base    string
	Command string // CommandServe or CommandBuild
}

const (
	CommandServe = "serve"
	CommandBuild = "build"
)

// InjectTo positions a tag descriptor inside the emitted HTML document.
type InjectTo string

const (
	InjectHeadPrepend InjectTo = "head-prepend"
	InjectHead        InjectTo = "head"
	InjectBodyPrepend InjectTo = "body-prepend"
	InjectBody        InjectTo = "body"
)

// TagDescriptor describes an element the host should add to an HTML page.
type TagDescriptor struct {
	Tag      string
	Attrs    map[string]string
	Children string
	InjectTo InjectTo
}

// Bundler turns one entry file into a single self-contained script.
type Bundler interface {
	Bundle(ctx context.Context, entry string) ([]byte, error)
}

// PathResolver maps an entry path to an absolute file.
type PathResolver interface {
	Resolve(rel string) (string, error)
}

// BundleStore hands out cached worker bundles.
type BundleStore interface {
	Ensure(ctx context.Context, unit WorkUnit) (string, error)
	Read(ctx context.Context, unit WorkUnit) ([]byte, error)
	Warm(ctx context.Context, units []WorkUnit) error
}

// Server is the part of a dev server a plugin needs to register middleware.
type Server interface {
	Use(mw func(http.Handler) http.Handler)
}
