package factory

import (
	"fmt"
	"reflect"

	"github.com/preon-go/preon/pkg/bitio"
	"github.com/preon-go/preon/pkg/codec"
	"github.com/preon-go/preon/pkg/metadata"
)

// Enumerator is implemented by a named Go type (an int8..int64/uint8..uint64
// kind) that wants enumSubFactory to build an EnumCodec for it instead of a
// plain NumericCodec. EnumValues maps every valid raw value to its display
// name, used only for documentation; decoding accepts exactly this key set.
type Enumerator interface {
	EnumValues() map[int64]string
}

// EnumDefaulter is an optional companion to Enumerator: a type implementing
// it supplies the value an unmapped raw reading decodes to instead of
// raising ErrEnumOutOfRange.
type EnumDefaulter interface {
	EnumDefault() int64
}

var enumeratorType = reflect.TypeOf((*Enumerator)(nil)).Elem()

func enumValuesOf(t reflect.Type) map[int64]string {
	if v, ok := reflect.Zero(t).Interface().(Enumerator); ok {
		return v.EnumValues()
	}
	if v, ok := reflect.New(t).Interface().(Enumerator); ok {
		return v.EnumValues()
	}
	return nil
}

func enumDefaultOf(t reflect.Type) (int64, bool) {
	if v, ok := reflect.Zero(t).Interface().(EnumDefaulter); ok {
		return v.EnumDefault(), true
	}
	if v, ok := reflect.New(t).Interface().(EnumDefaulter); ok {
		return v.EnumDefault(), true
	}
	return 0, false
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func endianFor(s *Session, fd metadata.FieldDescriptor) bitio.ByteOrder {
	if fd.Meta.EndianSet {
		return bitio.ByteOrder(fd.Meta.Endian)
	}
	return s.DefaultEndian()
}

// numericSubFactory builds a NumericCodec for any plain integer-kinded
// field not claimed by enumSubFactory.
type numericSubFactory struct{}

func (numericSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return isIntegerKind(t.Kind())
}

func (numericSubFactory) Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	widthExpr := fd.Meta.Bits
	if widthExpr == nil {
		widthExpr = constIntExpr(int64(t.Bits()))
	}
	return codec.NewNumeric(t, widthExpr, isSignedKind(t.Kind()), endianFor(s, fd), s.Evaluator()), nil
}

// booleanSubFactory builds the fixed 1-bit BooleanCodec.
type booleanSubFactory struct{}

func (booleanSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return t.Kind() == reflect.Bool
}

func (booleanSubFactory) Build(_ *Session, _ reflect.Type, _ metadata.FieldDescriptor) (codec.Codec, error) {
	return codec.NewBoolean(), nil
}

// floatSubFactory builds a FloatCodec for float32/float64 fields. Their
// width is fixed by IEEE-754, so `bits:` metadata does not apply here.
type floatSubFactory struct{}

func (floatSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func (floatSubFactory) Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	bits := 32
	if t.Kind() == reflect.Float64 {
		bits = 64
	}
	return codec.NewFloat(bits, endianFor(s, fd)), nil
}

// byteArraySubFactory builds a ByteArrayCodec for []byte fields; the field
// must declare a length, since a raw byte array has no self-delimiting
// shape of its own.
type byteArraySubFactory struct{}

func (byteArraySubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func (byteArraySubFactory) Build(s *Session, _ reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	if fd.Meta.Length == nil {
		return nil, fmt.Errorf("byte array field %q needs a length", fd.Name)
	}
	return codec.NewByteArray(fd.Meta.Length, s.Evaluator()), nil
}

// stringSubFactory builds a StringCodec, defaulting to zero-byte
// termination when neither an explicit termination mode nor a length is
// declared, and to fixed-length framing when only a length is given.
type stringSubFactory struct{}

func (stringSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return t.Kind() == reflect.String
}

func (stringSubFactory) Build(s *Session, _ reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	term := codec.TermZeroByte
	switch {
	case fd.Meta.StringTermSet:
		term = codec.Termination(fd.Meta.StringTerm)
	case fd.Meta.Length != nil:
		term = codec.TermNone
	}
	return codec.NewString(fd.Meta.Length, fd.Meta.Charset, term, s.Evaluator()), nil
}

// enumSubFactory builds an EnumCodec for any integer-kinded field whose Go
// type implements Enumerator, wrapping a plain NumericCodec as the
// underlying raw-value codec.
type enumSubFactory struct{}

func (enumSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	if !isIntegerKind(t.Kind()) {
		return false
	}
	return t.Implements(enumeratorType) || reflect.PointerTo(t).Implements(enumeratorType)
}

func (enumSubFactory) Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	widthExpr := fd.Meta.Bits
	if widthExpr == nil {
		widthExpr = constIntExpr(int64(t.Bits()))
	}
	underlying := codec.NewNumeric(t, widthExpr, isSignedKind(t.Kind()), endianFor(s, fd), s.Evaluator())

	values := enumValuesOf(t)
	mapping := make(map[int64]reflect.Value, len(values))
	for raw := range values {
		mapping[raw] = reflect.ValueOf(raw).Convert(t)
	}

	var defPtr *reflect.Value
	if raw, ok := enumDefaultOf(t); ok {
		def := reflect.ValueOf(raw).Convert(t)
		defPtr = &def
	}

	return codec.NewEnum(underlying, t, mapping, defPtr), nil
}

// listSubFactory builds a ListCodec for any slice field not claimed by
// byteArraySubFactory. The discipline is chosen from the field's metadata:
// a terminator sentinel wins over a declared length, and LengthIsBytes
// picks byte-extent over element-count.
type listSubFactory struct{}

func (listSubFactory) Accepts(t reflect.Type, _ metadata.FieldDescriptor) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8
}

func (listSubFactory) Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	elemType := t.Elem()
	elemCodec, err := s.BuildField(elemType, fd, s.Context())
	if err != nil {
		return nil, err
	}
	ev := s.Evaluator()

	switch {
	case fd.Meta.TerminatorSet:
		if len(fd.Meta.Terminator) == 0 {
			return nil, fmt.Errorf("list field %q: terminator must be non-empty", fd.Name)
		}
		sentinel := reflect.ValueOf(fd.Meta.Terminator[0]).Convert(elemType)
		return codec.NewListByTerminator(elemCodec, sentinel, fd.Meta.IncludeTerminator, ev), nil
	case fd.Meta.Length != nil && fd.Meta.LengthIsBytes:
		return codec.NewListByByteExtent(elemCodec, fd.Meta.Length, ev), nil
	case fd.Meta.Length != nil:
		return codec.NewListByCount(elemCodec, fd.Meta.Length, ev), nil
	default:
		return nil, fmt.Errorf("list field %q needs a length or terminator", fd.Name)
	}
}

// choiceSubFactory builds a ChoiceCodec for any field declaring `choices:`,
// regardless of its Go Kind (typically an interface type every branch's
// concrete type implements).
type choiceSubFactory struct{}

func (choiceSubFactory) Accepts(_ reflect.Type, fd metadata.FieldDescriptor) bool {
	return len(fd.Meta.Choices) > 0
}

func (choiceSubFactory) Build(s *Session, t reflect.Type, fd metadata.FieldDescriptor) (codec.Codec, error) {
	var defCodec codec.Codec
	if fd.Meta.Default != nil {
		var err error
		defCodec, err = s.BuildField(fd.Meta.Default, fd, s.Context())
		if err != nil {
			return nil, fmt.Errorf("default branch: %w", err)
		}
	}

	cc := codec.NewChoice(t, defCodec, s.Evaluator())
	for _, opt := range fd.Meta.Choices {
		branch, err := s.BuildField(opt.Type, fd, s.Context())
		if err != nil {
			return nil, fmt.Errorf("choice branch %s: %w", opt.Type, err)
		}
		cc.AddOption(opt.Guard, branch)
	}
	return cc, nil
}
