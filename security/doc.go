// Package security builds TLS configurations from config files.
//
// The same TLSConfig block serves both sides of a connection:
//
//	server:
//	  tls:
//	    enabled: true
//	    cert_file: /etc/authgate/tls.crt
//	    key_file: /etc/authgate/tls.key
//	    ca_file: ""          # set to require client certificates
//	redis:
//	  tls:
//	    enabled: true
//	    ca_file: /etc/ssl/redis-ca.pem
//
// ServerConfig is used by the HTTP listener, ClientConfig by the redis client.
package security
