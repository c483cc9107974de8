package cli

import (
	"github.com/spf13/viper"
)

// profile is a reusable filter described in a config file, e.g.
//
//	topics:
//	  - /imu
//	  - /tf
//	start: "1700000000"
//	end: "1700000060"
//	compression: lz4
type profile struct {
	Topics      []string `mapstructure:"topics"`
	Start       string   `mapstructure:"start"`
	End         string   `mapstructure:"end"`
	Compression string   `mapstructure:"compression"`
}

func loadProfile(path string) (*profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var p profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
