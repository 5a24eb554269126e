// config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	PublicBaseURL string        `mapstructure:"publicBaseURL"` // base of the public report page encoded in QR codes
	CORSOrigins   []string      `mapstructure:"corsOrigins"`
	ShutdownGrace time.Duration `mapstructure:"shutdownGrace"`
}

type MongoConfig struct {
	URI       string        `mapstructure:"uri"`
	DBName    string        `mapstructure:"dbName"`
	OpTimeout time.Duration `mapstructure:"opTimeout"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type MediaConfig struct {
	MaxWidth    int   `mapstructure:"maxWidth"`
	JPEGQuality int   `mapstructure:"jpegQuality"`
	MaxBytes    int64 `mapstructure:"maxBytes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type SeedConfig struct {
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
}

type JobsConfig struct {
	OrphanSweep string `mapstructure:"orphanSweep"` // cron spec, empty disables
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	S3      S3Config      `mapstructure:"s3"`
	Media   MediaConfig   `mapstructure:"media"`
	Logging LoggingConfig `mapstructure:"logging"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
}

// LoadConfig reads config.yaml from path and lets environment variables
// override individual keys. A missing file is not an error.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.publicBaseURL", "http://localhost:3000/report")
	v.SetDefault("server.corsOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdownGrace", "10s")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.dbName", "car_inspection")
	v.SetDefault("mongo.opTimeout", "10s")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("media.maxWidth", 1600)
	v.SetDefault("media.jpegQuality", 85)
	v.SetDefault("media.maxBytes", 10<<20)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("seed.adminEmail", "admin@example.com")
	v.SetDefault("jobs.orphanSweep", "@hourly")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// "mongo.uri" in YAML is overridden by MONGO_URI, and so on.
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.publicBaseURL", "SERVER_PUBLIC_BASE_URL")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.dbName", "MONGO_DBNAME")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
	v.BindEnv("seed.adminEmail", "SEED_ADMIN_EMAIL")
	v.BindEnv("seed.adminPassword", "SEED_ADMIN_PASSWORD")

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
