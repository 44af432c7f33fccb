// Package annotation implements the persistent per-occurrence annotation
// subsystem: stable key derivation, the annotation store with legacy schema
// migration, and the edit reducer.
package annotation

// Decision values a user can attach to an occurrence.
const (
	DecisionNone   = ""
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Annotation is a user's judgement on a single occurrence: a decision, an
// alternative taxon identifier suggestion, and free-text comments.
type Annotation struct {
	Decision    string `json:"decision"`
	Alternative string `json:"alternative"`
	Comments    string `json:"comments"`
}

// IsEmpty reports whether every field is empty. Empty annotations are never
// stored; the reducer prunes them.
func (a Annotation) IsEmpty() bool {
	return a.Decision == "" && a.Alternative == "" && a.Comments == ""
}

// Map holds all annotations keyed by derived occurrence key.
type Map map[string]Annotation

// Clone returns a shallow copy of the map; Annotation values are plain
// structs so a shallow copy is a full copy.
func (m Map) Clone() Map {
	cloned := make(Map, len(m))
	for key, a := range m {
		cloned[key] = a
	}
	return cloned
}
