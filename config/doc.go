// Package config loads the service configuration from defaults, a YAML file,
// .env files, environment variables and command line flags, then validates it.
//
// Logical services and their instances live under the services key:
//
//	downstream:
//	  service: service-client1
//	  path: /hello
//	services:
//	  service-client1:
//	    - url: http://localhost:8081
//	      weight: 1
package config
