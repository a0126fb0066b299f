package person

// RefKind tags what a relation slot resolved to.
type RefKind uint8

const (
	// RefUnset means no value was supplied.
	RefUnset RefKind = iota
	RefLoaded
	RefNotLoaded
	RefNoSpouse
)

func (k RefKind) String() string {
	switch k {
	case RefLoaded:
		return "loaded"
	case RefNotLoaded:
		return "not_loaded"
	case RefNoSpouse:
		return "no_spouse"
	default:
		return "unset"
	}
}

// Ref is the result of resolving a relation id: a cached record, a
// placeholder for an id that is not cached, or the explicit "no spouse" value.
type Ref struct {
	Kind   RefKind
	Record *Record
}

func Loaded(r *Record) Ref {
	if r == nil {
		return Ref{}
	}
	if r.placeholder {
		return Ref{Kind: RefNotLoaded, Record: r}
	}
	return Ref{Kind: RefLoaded, Record: r}
}

func NotLoaded(id ID) Ref {
	return Ref{Kind: RefNotLoaded, Record: Placeholder(id)}
}

func NoSpouse() Ref { return Ref{Kind: RefNoSpouse} }

// Present reports whether the slot names a person, loaded or not.
func (r Ref) Present() bool { return r.Kind == RefLoaded || r.Kind == RefNotLoaded }

func (r Ref) IsLoaded() bool { return r.Kind == RefLoaded }

func (r Ref) ID() ID {
	if !r.Present() {
		return ""
	}
	return r.Record.id
}

// Key is the slot's contribution to a couple id.
func (r Ref) Key() string {
	switch r.Kind {
	case RefLoaded, RefNotLoaded:
		return string(r.Record.id)
	case RefNoSpouse:
		return "none"
	default:
		return "unset"
	}
}

// Placeholder is the stand-in record rendered for an id that is referenced
// but not cached. It has no relations loaded.
func Placeholder(id ID) *Record {
	return &Record{
		id:          id,
		FirstName:   "?",
		BirthDate:   UnknownDate,
		DeathDate:   UnknownDate,
		placeholder: true,
		view:        newViewState(),
	}
}
