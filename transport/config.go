package transport

import (
	"github.com/mitchellh/mapstructure"

	"github.com/xprobe/mars/utils/errors"
)

// DecodeConfig extracts one scheme's section from the global transport
// configuration blob into out. Returns false when the blob has no such
// section, which is not an error.
func DecodeConfig(global map[string]any, section string, out any) (bool, error) {
	raw, ok := global[section]
	if !ok || raw == nil {
		return false, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return false, err
	}
	if err := dec.Decode(raw); err != nil {
		return false, errors.WrapWith(err, "transport: invalid %q config section", section)
	}
	return true, nil
}
