// Package ir defines the intermediate representation for shape types.
//
// The IR is agnostic to how shapes are declared (the shape package's
// Go constructors or YAML declaration files) and only records the
// schema of the types: field order, optionality, canonical JSON
// default literals and wire field ids. It is the interchange format
// between the extractor and the per-language code generators, and is
// serialized as JSON between the two passes.
//
// A Module holds every type declared by one shape target plus the
// target that produced it. Types referenced from other modules appear
// as Foreign entries naming the other module's target; the IR cannot
// contain cycles.
package ir
