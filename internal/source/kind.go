package source

import "fmt"

// Kind identifies an entity type in the hierarchy.
type Kind int

const (
	KindProject Kind = iota + 1
	KindSystem
	KindObject
	KindState
	KindAction
	KindGetter
	KindSetter
	KindValue
)

var kindNames = map[Kind]string{
	KindProject: "project",
	KindSystem:  "system",
	KindObject:  "object",
	KindState:   "state",
	KindAction:  "action",
	KindGetter:  "getter",
	KindSetter:  "setter",
	KindValue:   "value",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a lowercase kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Children lists the child kinds a document of kind k may own, in the
// order their collections are declared.
func (k Kind) Children() []Kind {
	switch k {
	case KindProject:
		return []Kind{KindSystem, KindValue}
	case KindSystem:
		return []Kind{KindObject}
	case KindObject:
		return []Kind{KindState, KindAction}
	case KindState:
		return []Kind{KindGetter, KindSetter}
	default:
		return nil
	}
}

// Owns reports whether k declares a collection of child kind c.
func (k Kind) Owns(c Kind) bool {
	for _, child := range k.Children() {
		if child == c {
			return true
		}
	}
	return false
}
