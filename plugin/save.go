package plugin

import "fmt"

// SavePreference is a plugin's advisory preference for having its output
// persisted. The zero value means unset and is defaulted at Bind. Only the
// ordering SaveNever < SaveIfExplicit < SaveIfMain < SaveAlways is part of
// the contract; compare preferences, never their numeric values.
type SavePreference int

const (
	// SaveNever: the output must not be saved, even if requested.
	SaveNever SavePreference = iota + 1
	// SaveIfExplicit: save only when the output is requested by name.
	SaveIfExplicit
	// SaveIfMain: save when the output is a final target.
	SaveIfMain
	// SaveAlways: save even when nothing asks for it.
	SaveAlways
)

func (s SavePreference) String() string {
	switch s {
	case 0:
		return "UNSET"
	case SaveNever:
		return "NEVER"
	case SaveIfExplicit:
		return "IF_EXPLICIT"
	case SaveIfMain:
		return "IF_MAIN"
	case SaveAlways:
		return "ALWAYS"
	default:
		return fmt.Sprintf("SavePreference(%d)", int(s))
	}
}

// ParseSavePreference parses the String form of a preference.
func ParseSavePreference(s string) (SavePreference, bool) {
	for p := SaveNever; p <= SaveAlways; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}
