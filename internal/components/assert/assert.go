// Package assert guards constructor arguments, a failed assertion is a
// programming error and panics.
package assert

import (
	"fmt"
	"time"
)

func NotNil(value any) {
	if value == nil {
		panic("assert: unexpected nil value")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("assert: unexpected empty string")
	}
}

func NonNegative(d time.Duration) {
	if d < 0 {
		panic(fmt.Sprintf("assert: unexpected negative duration %s", d))
	}
}
