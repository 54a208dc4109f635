// Package config loads routefilter.json.
//
// The file declares the route table, the hook registries and the runtime
// settings. It is read from a local path or from an s3://bucket/key object.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "routes": [
//	    {"pattern": "", "handler": "home"},
//	    {"pattern": "page/:id", "handler": "page"},
//	    {"pattern": "files/*path", "handler": "files"}
//	  ],
//	  "before": {
//	    "routes": {
//	      "*":        {"type": "log"},
//	      "page/:id": {"type": "deny", "param": 0, "values": ["789"]}
//	    }
//	  },
//	  "after": {"all": {"type": "log"}},
//	  "server": {
//	    "address": ":8080",
//	    "metrics_path": "/metrics",
//	    "events": true,
//	    "events_origins": ["https://dashboard.example.com"]
//	  },
//	  "log": {"level": "info", "format": "text"}
//	}
//
// Later routes take precedence when more than one pattern matches. A hook
// registry uses either "all" or "routes", never both.
//
// # Usage
//
//	cfg, err := config.Load(ctx, "routefilter.json")
//	if err != nil {
//	    errors.Print(os.Stderr, err)
//	    os.Exit(1)
//	}
package config
