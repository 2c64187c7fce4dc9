package config

const (
	// EnvPrefix namespaces every environment variable consumed by the app.
	EnvPrefix = "RESTO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
