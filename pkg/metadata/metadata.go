// Package metadata defines the external metadata-source collaborator of
// spec.md §6: the shape the codec factory consumes to learn, per field of
// a composite type, which codec to build and which EL expressions drive
// its presence, length, offset, and numeric interpretation.
//
// spec.md §1 explicitly keeps the Java-style annotation scanner out of
// scope, replacing it with "any metadata source that yields the field
// descriptors defined in §3". Source is that replacement: an
// implementation may populate it from a struct-tag reader
// (pkg/metadata/directive), a schema file, or a hand-built option list —
// the factory only ever sees Source.
package metadata

import (
	"reflect"

	"github.com/preon-go/preon/pkg/reference"
	"github.com/preon-go/preon/pkg/types"
)

// ChoiceOption is one branch of a `choices:` discriminated union (spec.md
// §6 "choices: [(Expression[Boolean], type)]").
type ChoiceOption struct {
	Guard *types.Expression
	Type  reflect.Type
}

// Bag is the enumerated option set spec.md §6 attaches to a field: every
// field carries one, almost always with most members unset (nil).
type Bag struct {
	// Bits is the field's width in bits (spec.md "bits: Integer|Expression").
	// Nil means "use the field's natural Go width" (8/16/32/64 for its kind).
	Bits *types.Expression
	// EndianSet/Endian select byte order for multi-byte numeric/float
	// fields; EndianSet false means "use the factory's configured default".
	EndianSet bool
	Endian    uint8 // bitio.ByteOrder, duplicated here to avoid an import cycle

	// If is the presence guard; nil means the field is always present.
	If *types.Expression
	// Length is the element count or byte length for list/array/string
	// fields; LengthIsBytes disambiguates the two for a list field (a byte
	// array/string field is always byte-length).
	Length        *types.Expression
	LengthIsBytes bool
	// Offset, if set, overrides the field's position with an absolute bit
	// offset.
	Offset *types.Expression
	// Extent, if set, bounds the field to exactly this many bits regardless
	// of however many bits its own codec naturally consumes (spec.md §2
	// "slice(startBit, lengthBits)"), the way a padded or forward-compatible
	// nested record reserves trailing bits a simpler reader can skip.
	Extent *types.Expression
	// Choices, if non-empty, makes this a discriminated union; Default, if
	// set, names the type to fall back to when no guard matches.
	Choices []ChoiceOption
	Default reflect.Type

	// Terminator is the list-termination sentinel (spec.md "terminator:
	// bytes"); IncludeTerminator controls whether Decode keeps it.
	Terminator        []byte
	TerminatorSet      bool
	IncludeTerminator bool

	// Charset names the string encoding (spec.md "charset: name"); empty
	// means UTF-8.
	Charset string
	// StringTerm selects fixed/null-terminated/length-prefixed framing;
	// duplicated as an int to avoid an import cycle with pkg/codec.
	StringTermSet bool
	StringTerm    int

	// Init is the value a skipped (`if`-guarded-false) field takes.
	Init *types.Expression
}

// FieldDescriptor is one field of a composite type, as spec.md §6 defines
// it: "{name, declared type, metadata bag}".
type FieldDescriptor struct {
	Name string
	Type reflect.Type
	Meta Bag
}

// Source supplies, for a composite Go type, the ordered list of field
// descriptors the factory compiles into an ObjectCodec (spec.md §6
// "Metadata source"). ctx is the reference.Context the factory has already
// derived from t's own field layout, so a Source can parse each field's EL
// expressions (if/offset/length/init/choices guards) against it as it
// builds the descriptors, rather than handing back unparsed strings.
type Source interface {
	Fields(t reflect.Type, ctx reference.Context) ([]FieldDescriptor, error)
}
