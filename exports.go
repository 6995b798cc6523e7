package monacoworkers

import "github.com/cryguy/monacoworkers/internal/core"

// Type aliases re-exporting internal/core types so hosts can configure and
// drive the plugin without importing the internal package.

type Options = core.Options
type WorkUnit = core.WorkUnit
type ResolvedConfig = core.ResolvedConfig
type TagDescriptor = core.TagDescriptor
type InjectTo = core.InjectTo
type Server = core.Server
type Bundler = core.Bundler
type PathResolver = core.PathResolver

// Constants re-exported from core.
const (
	DefaultPublicPath    = core.DefaultPublicPath
	DefaultEditorPackage = core.DefaultEditorPackage
	CommandServe         = core.CommandServe
	CommandBuild         = core.CommandBuild

	InjectHeadPrepend = core.InjectHeadPrepend
	InjectHead        = core.InjectHead
	InjectBodyPrepend = core.InjectBodyPrepend
	InjectBody        = core.InjectBody
)

// Errors re-exported from core, for use with errors.Is.
var (
	ErrNotFound       = core.ErrNotFound
	ErrBundle         = core.ErrBundle
	ErrIO             = core.ErrIO
	ErrInvalidOptions = core.ErrInvalidOptions
	ErrNotConfigured  = core.ErrNotConfigured
)

// Functions re-exported from core.
var IsCDN = core.IsCDN
