package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MQTT ingest path; disabled when the host is empty
	MQTTHost  string
	MQTTPort  int
	MQTTUser  string
	MQTTPass  string
	MQTTTopic string

	CORSOrigins []string
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func loadConfig() Config {
	return Config{
		Port: envStr("PORT", "3000"),

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "firealert"),
		InfluxBucket: envStr("INFLUX_BUCKET", "alerts"),

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		MQTTHost:  envStr("MQTT_HOST", ""),
		MQTTPort:  envInt("MQTT_PORT", 1883),
		MQTTUser:  envStr("MQTT_USER", "guest"),
		MQTTPass:  envStr("MQTT_PASSWORD", "guest"),
		MQTTTopic: envStr("MQTT_TOPIC", "sensor/data/#"),

		CORSOrigins: strings.Split(envStr("CORS_ORIGINS", "*"), ","),
	}
}
