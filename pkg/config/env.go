package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the full
// variable name in their tags so the prefix stays empty here.
const EnvPrefix = ""

const (
	AppEnvDev   = "dev"
	AppEnvStage = "stage"
	AppEnvProd  = "prod"
)

const (
	EnvDBDSN  = "ATHATH_DB_DSN"
	EnvDBHost = "ATHATH_DB_HOST"
	EnvDBUser = "ATHATH_DB_USER"
	EnvDBName = "ATHATH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
