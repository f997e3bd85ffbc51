package config

import (
	"reflect"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
)

// StringToDataSizeHook разбирает "10MB", "512kb" в datasize.ByteSize.
func StringToDataSizeHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t != reflect.TypeOf(datasize.B) {
		return data, nil
	}
	var size datasize.ByteSize
	err := size.UnmarshalText([]byte(data.(string)))
	return size, err
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		StringToDataSizeHook,
	)
}
