package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func bindFlag(flag *pflag.Flag, key string) {
	handleBindingError(viper.BindPFlag(key, flag), key)
}
