package energy

// emphasisLexicon is the fixed set of high-energy words the detector counts
// per window. Matching is case- and punctuation-insensitive (see
// normalizeWord). The set is deliberately small and generic — it flags
// enthusiasm markers, not topic vocabulary.
var emphasisLexicon = map[string]struct{}{
	"amazing":       {},
	"incredible":    {},
	"love":          {},
	"awesome":       {},
	"fantastic":     {},
	"excited":       {},
	"exciting":      {},
	"huge":          {},
	"massive":       {},
	"unbelievable":  {},
	"wow":           {},
	"absolutely":    {},
	"definitely":    {},
	"totally":       {},
	"really":        {},
	"literally":     {},
	"crazy":         {},
	"insane":        {},
	"perfect":       {},
	"brilliant":     {},
	"wonderful":     {},
	"great":         {},
	"best":          {},
	"favorite":      {},
	"obsessed":      {},
	"powerful":      {},
	"extraordinary": {},
}
