package weather

import (
	"github.com/foxseedlab/oshaberin/internal/commands"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (commands.Weather, error) {
		return NewOpenMeteoProvider(), nil
	})
}
