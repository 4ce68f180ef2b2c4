package mq

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Well-known hosted endpoints for the service.
const (
	HostAWSUSEast = "mq-aws-us-east-1.iron.io"
	HostRackspace = "mq-rackspace-ord.iron.io"
)

// Defaults applied by DefaultConfig and Client construction.
const (
	DefaultAPIVersion = 3
	DefaultScheme     = "https"
	DefaultPort       = 443
	DefaultMaxRetries = 5
)

// Config carries everything needed to reach the service. It is read-only
// after construction; the same Config may be shared by any number of
// concurrent operations.
type Config struct {
	Token     string `validate:"required"` // OAuth token
	ProjectID string `validate:"required"` // project scope for all endpoints

	APIVersion int    `validate:"min=1"`
	Scheme     string `validate:"oneof=http https"`
	Host       string `validate:"required,hostname|ip"`
	Port       int    `validate:"min=1,max=65535"`

	// MaxRetries is the number of additional attempts after the first when
	// the service answers 503. Zero disables retrying.
	MaxRetries int `validate:"min=0"`
}

// DefaultConfig returns a Config for the given credentials with every other
// field set to its default (v3 API, HTTPS against the AWS endpoint, 5 retries).
func DefaultConfig(token, projectID string) Config {
	return Config{
		Token:      token,
		ProjectID:  projectID,
		APIVersion: DefaultAPIVersion,
		Scheme:     DefaultScheme,
		Host:       HostAWSUSEast,
		Port:       DefaultPort,
		MaxRetries: DefaultMaxRetries,
	}
}

// Validate checks the config against its struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}
	return nil
}

// baseURL renders the scheme://host:port prefix shared by every request.
func (c Config) baseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

var validate = validator.New()
