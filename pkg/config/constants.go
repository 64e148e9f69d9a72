package config

const (
	EnvPrefix = "adspark"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "ADSPARK_APP_ENV"
	EnvPort           = "ADSPARK_APP_PORT"
	EnvDBDSN          = "ADSPARK_DB_DSN"
	EnvDBHost         = "ADSPARK_DB_HOST"
	EnvDBUser         = "ADSPARK_DB_USER"
	EnvDBName         = "ADSPARK_DB_NAME"
	EnvRedisURL       = "ADSPARK_REDIS_URL"
	EnvIdentitySecret = "ADSPARK_IDENTITY_JWT_SECRET"
	EnvIdentityIssuer = "ADSPARK_IDENTITY_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
