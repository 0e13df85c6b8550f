package ai

// messages holds the user-facing texts per locale.
type messages struct {
	SummaryFailed string
	ExtractFailed string
}

var catalog = map[string]messages{
	"en": {
		SummaryFailed: "Sorry, the summary could not be generated right now. Please try again later.",
		ExtractFailed: "Could not read details from this link. Please check the URL or fill in the fields manually.",
	},
	"de": {
		SummaryFailed: "Die Zusammenfassung konnte gerade nicht erstellt werden. Bitte später erneut versuchen.",
		ExtractFailed: "Aus diesem Link konnten keine Details gelesen werden. Bitte URL prüfen oder Felder manuell ausfüllen.",
	},
}

func messagesFor(locale string) messages {
	if m, ok := catalog[locale]; ok {
		return m
	}
	return catalog["en"]
}

// UserError carries a message meant to be shown to the user as is.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.Err }
