// Package translate renders user visible messages in the operator's locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("r8vm: locale: %v", err)
	}

	SetLocales(locales...)
}

// SetLocales selects the message printer best matching the BCP 47 tags,
// in order of preference. With no tags, messages are rendered in en-US.
func SetLocales(tags ...string) {
	if len(tags) == 0 {
		printer = message.NewPrinter(language.AmericanEnglish)
		return
	}

	printer = message.NewPrinter(message.MatchLanguage(tags...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
