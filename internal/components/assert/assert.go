package assert

import "fmt"

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

func True(cond bool, msg string, params ...any) {
	if !cond {
		panic(fmt.Sprintf(msg, params...))
	}
}
