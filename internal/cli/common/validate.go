package common

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ValidateServeConfig checks the minimum a serve run needs. strict also
// requires a real JWT secret (dev runs may fall back to the built-in one).
func ValidateServeConfig(v *viper.Viper, strict bool) error {
	if strings.TrimSpace(v.GetString("http_addr")) == "" {
		return fmt.Errorf("http_addr required")
	}
	if strict && strings.TrimSpace(v.GetString("jwt_secret")) == "" {
		return fmt.Errorf("jwt_secret required")
	}
	if v.IsSet("lock.redis_url") && strings.TrimSpace(v.GetString("lock.redis_url")) == "" {
		return fmt.Errorf("lock.redis_url set but empty")
	}
	return nil
}
