package audio

import (
	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.DecoderFactory(NewOpusDecoder))
	do.ProvideValue(injector, audio.EncoderFactory(NewOpusEncoder))
}
