// Package translate formats user facing messages in the caller's locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fallback is used when the system reports no usable locale.
const Fallback = "en-US"

var printer *message.Printer

func init() {
	printer = NewPrinter()
}

// NewPrinter returns a printer for the language reported by Tag.
func NewPrinter() *message.Printer {
	return message.NewPrinter(Tag())
}

// Tag returns the language matched against the system locales, or the
// Fallback language if none match.
func Tag() (tag language.Tag) {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("isc: locale: %v", err)
	}

	if len(locales) != 0 {
		tag = message.MatchLanguage(locales...)
	}
	if tag == language.Und {
		tag = language.MustParse(Fallback)
	}

	return
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
