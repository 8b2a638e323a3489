// Package api is the relay's HTTP surface, built on gin.
//
// Routes
//
//	PUT    /v1/keys/:user/:device                register a device
//	DELETE /v1/keys/:user/:device                deregister a device
//	GET    /v1/keys/:user/:device/bundle         fetch a bundle (consumes a one-time pre-key)
//	GET    /v1/keys/:user                        list a user's devices
//	POST   /v1/keys/:user/:device/prekeys        upload one-time pre-keys
//	DELETE /v1/keys/:user/:device/prekeys/:id    remove one one-time pre-key
//	GET    /v1/keys/:user/:device/prekeys/count  one-time pool size
//	PUT    /v1/keys/:user/:device/signed         rotate the signed pre-key
//	GET    /healthz                              liveness
//	GET    /metrics                              prometheus, when enabled
//
// Bodies are JSON with byte fields in base64. Bundles are also available in
// the binary encoding of package wire by sending Accept: application/x-protobuf.
// Errors are {"code": <status>, "message": "..."}. Cross-origin browser
// clients are admitted only for the origins listed in RouterConfig.CORSOrigins.
package api
