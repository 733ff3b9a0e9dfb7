package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONConfig mirrors [Config] with JSON tags and string-friendly duration
// parsing for the optional configuration file.
type JSONConfig struct {
	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	KDF struct {
		TargetMin     Duration `json:"target_min"`
		TargetMax     Duration `json:"target_max"`
		MinIterations int      `json:"min_iterations"`
	} `json:"kdf,omitempty"`

	Engine struct {
		OrphanBuffer int `json:"orphan_buffer"`
		QueueDepth   int `json:"queue_depth"`
	} `json:"engine,omitempty"`
}

func parseJSON(jsonFilePath string) (*Config, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg JSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &Config{
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		KDF: KDF{
			TargetMin:     time.Duration(jsonCfg.KDF.TargetMin),
			TargetMax:     time.Duration(jsonCfg.KDF.TargetMax),
			MinIterations: jsonCfg.KDF.MinIterations,
		},
		Engine: Engine{
			OrphanBuffer: jsonCfg.Engine.OrphanBuffer,
			QueueDepth:   jsonCfg.Engine.QueueDepth,
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON
// unmarshaling from strings like "150ms", "1h".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
