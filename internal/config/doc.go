// Package config provides configuration parsing for vdiff.
//
// The configuration is stored in vdiff.json. This package handles loading,
// saving, and validating configuration. Missing fields take their defaults,
// and VDIFF_ADDR overrides the stream address.
//
// # Configuration File Structure
//
//	{
//	  "diff": {
//	    "bulkInsertThreshold": 16
//	  },
//	  "session": {
//	    "maxSessions": 10000,
//	    "idleTimeout": "30m",
//	    "historySize": 100
//	  },
//	  "stream": {
//	    "addr": "localhost:7070",
//	    "writeTimeout": "10s",
//	    "sendBuffer": 64,
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "archive": {
//	    "enabled": true,
//	    "bucket": "vdiff-batches",
//	    "prefix": "batches",
//	    "region": "eu-west-1"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "vdiff"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "json"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
