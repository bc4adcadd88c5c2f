package challenge

import (
	"errors"

	"github.com/ezrec/r8vm/translate"
)

var f = translate.From

var (
	ErrFlagSize = errors.New(f("flag too long"))
)
