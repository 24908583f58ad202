package notifications

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgPrintComplete = "Print complete"
	msgTestBody      = "Notification system test"
)

var translations = map[string]map[language.Tag]string{
	msgPrintComplete: {
		language.German:     "Druck abgeschlossen",
		language.Spanish:    "Impresión completada",
		language.French:     "Impression terminée",
		language.Italian:    "Stampa completata",
		language.Dutch:      "Afdrukken voltooid",
		language.Portuguese: "Impressão concluída",
	},
	msgTestBody: {
		language.German:  "Test des Benachrichtigungssystems",
		language.Spanish: "Prueba del sistema de notificaciones",
		language.French:  "Test du système de notification",
	},
}

func buildCatalog() *catalog.Builder {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, byLang := range translations {
		_ = builder.SetString(language.English, key, key)
		for tag, text := range byLang {
			_ = builder.SetString(tag, key, text)
		}
	}
	return builder
}

// newPrinter returns a message printer for lang, falling back to English for
// unknown or malformed tags.
func newPrinter(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(buildCatalog()))
}
