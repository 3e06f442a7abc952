package profiles

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// apply returns the new value of an optional column after the patch.
func apply(cur *string, o Optional[string]) *string {
	switch {
	case !o.IsSpecified():
		return cur
	case o.IsNull():
		return nil
	default:
		v := o.Value()
		return &v
	}
}

// UpdateMyProfileInput is a partial update. Unspecified fields are kept,
// null clears the field.
type UpdateMyProfileInput struct {
	DisplayName Optional[string]
	Bio         Optional[string]
	AvatarURL   Optional[string]
}

// EnsureProfileInput carries the verified caller's claims.
type EnsureProfileInput struct {
	Subject string
	Email   string
}
