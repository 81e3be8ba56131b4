package docx

import "github.com/cgast/docverify/pkg/format"

// Inspectors returns the inspector for every format type this package
// understands.
func Inspectors() map[format.FormatType]format.Inspector {
	return map[format.FormatType]format.Inspector{
		format.TrackChanges: format.InspectorFunc(InspectTrackChanges),
		format.Comments:     format.InspectorFunc(InspectComments),
		format.Tables:       format.InspectorFunc(InspectTables),
		format.Headings:     format.InspectorFunc(InspectHeadings),
		format.Hyperlinks:   format.InspectorFunc(InspectHyperlinks),
		format.Images:       format.InspectorFunc(InspectImages),
		format.Styles:       format.InspectorFunc(InspectStyles),
	}
}

// NewRegistry builds a registry holding every docx inspector.
func NewRegistry(opts ...format.RegistryOption) *format.Registry {
	r := format.NewRegistry(opts...)
	for ft, insp := range Inspectors() {
		// Cannot collide: the registry is fresh and the map keys are unique.
		_ = r.Register(ft, insp)
	}
	return r
}
