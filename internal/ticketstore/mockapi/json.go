package mockapi

import "github.com/bytedance/sonic"

func jsonUnmarshal(b []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(b, v)
}
