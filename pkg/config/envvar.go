package config

import "os"

// EnvVar represents an environment variable, specified by its key name.
type EnvVar string

const (
	EnvNodeEnv       EnvVar = "NODE_ENV"
	EnvRegion        EnvVar = "AWS_REGION"
	EnvDefaultRegion EnvVar = "CDK_DEFAULT_REGION"
	EnvAccountID     EnvVar = "AWS_ACCOUNT_ID"
	EnvDefaultAcct   EnvVar = "CDK_DEFAULT_ACCOUNT"
)

// Lookup returns the variable's value from the first source that has it set to a non-empty value.
func (s EnvVar) Lookup(sources ...func(string) (string, bool)) (string, bool) {
	for _, lookup := range sources {
		if v, ok := lookup(string(s)); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// GetOr is like Lookup against the process environment, falling back to defaultValue.
func (s EnvVar) GetOr(defaultValue string) string {
	if v, ok := s.Lookup(os.LookupEnv); ok {
		return v
	}
	return defaultValue
}

func firstOf(vars []EnvVar, sources ...func(string) (string, bool)) (string, bool) {
	for _, v := range vars {
		if value, ok := v.Lookup(sources...); ok {
			return value, true
		}
	}
	return "", false
}
