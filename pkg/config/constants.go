package config

// EnvPrefix is the envconfig prefix shared by every FuelPass service.
const EnvPrefix = "FUELPASS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "FUELPASS_APP_ENV"
	EnvPort     = "FUELPASS_APP_PORT"
	EnvDBDSN    = "FUELPASS_DB_DSN"
	EnvDBHost   = "FUELPASS_DB_HOST"
	EnvDBUser   = "FUELPASS_DB_USER"
	EnvDBName   = "FUELPASS_DB_NAME"
	EnvRedisURL = "FUELPASS_REDIS_URL"

	EnvQRTokenSecret = "FUELPASS_QR_TOKEN_SECRET"
	EnvGCPProjectID  = "FUELPASS_GCP_PROJECT_ID"

	EnvPubSubCouponTopic        = "FUELPASS_PUBSUB_COUPON_TOPIC"
	EnvPubSubCouponSubscription = "FUELPASS_PUBSUB_COUPON_SUBSCRIPTION"
	EnvPubSubRaffleTopic        = "FUELPASS_PUBSUB_RAFFLE_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
