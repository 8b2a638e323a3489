package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"

	"keyrelay/internal/domain"
	"keyrelay/internal/wire"
)

const maxUserIDLength = 256

// KeysApi serves the /v1/keys routes.
type KeysApi struct {
	bundles  domain.BundleService
	registry domain.RegistrationService
	logger   log.Logger
	validate *validator.Validate
}

// NewKeysApi returns a KeysApi. A nil logger discards output.
func NewKeysApi(bundles domain.BundleService, registry domain.RegistrationService, logger log.Logger) *KeysApi {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &KeysApi{
		bundles:  bundles,
		registry: registry,
		logger:   logger,
		validate: validator.New(),
	}
}

func (a *KeysApi) logError(c *gin.Context, err error) {
	level.Error(a.logger).Log(
		"msg", "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"request_id", c.GetString(requestIDKey),
		"err", err,
	)
}

func (a *KeysApi) user(c *gin.Context) (domain.UserID, bool) {
	user := c.Param("user")
	if err := a.validate.Var(user, "required,max=256"); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "user must be 1 to %d bytes", maxUserIDLength)
		return "", false
	}
	return domain.UserID(user), true
}

func (a *KeysApi) address(c *gin.Context) (domain.Address, bool) {
	user, ok := a.user(c)
	if !ok {
		return domain.Address{}, false
	}
	dev, err := domain.ParseDeviceID(c.Param("device"))
	if err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid device id")
		return domain.Address{}, false
	}
	return domain.Address{User: user, Device: dev}, true
}

// RegisterDevice publishes a device's identity key, signed pre-key and an
// initial batch of one-time pre-keys, replacing any earlier registration.
// @Summary Register a device
// @Success 201 {object} api.OutputPreKeyCount
// @Failure 400 {object} api.ApiError "invalid input or signature"
// @Failure 409 {object} api.ApiError "duplicate pre-key id"
// @Router /v1/keys/{user}/{device} [put]
func (a *KeysApi) RegisterDevice(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	var input InputRegisterDevice
	if !a.bindJSON(c, &input) {
		return
	}
	reg := domain.DeviceRegistration{
		Address:        addr,
		RegistrationID: input.RegistrationID,
		IdentityKey:    input.IdentityKey,
		SignedPreKey:   input.SignedPreKey.record(),
		PreKeys:        preKeyRecords(input.PreKeys),
	}
	if err := a.registry.Register(c.Request.Context(), reg); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, OutputPreKeyCount{Count: len(reg.PreKeys)})
}

// Deregister drops every key held for a device.
// @Summary Deregister a device
// @Success 200 {object} api.OutputStatus
// @Failure 404 {object} api.ApiError "device not found"
// @Router /v1/keys/{user}/{device} [delete]
func (a *KeysApi) Deregister(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	if err := a.registry.Deregister(c.Request.Context(), addr); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputStatus{Status: "deregistered"})
}

// FetchBundle hands out a pre-key bundle and consumes one one-time pre-key.
// The response is JSON unless the client asks for application/x-protobuf.
// @Summary Fetch a pre-key bundle
// @Success 200 {object} domain.PreKeyBundle
// @Failure 404 {object} api.ApiError "device not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Produce json
// @Produce application/x-protobuf
// @Router /v1/keys/{user}/{device}/bundle [get]
func (a *KeysApi) FetchBundle(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	b, err := a.bundles.Fetch(c.Request.Context(), addr)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	if c.NegotiateFormat(gin.MIMEJSON, wire.ContentType) == wire.ContentType {
		c.Data(http.StatusOK, wire.ContentType, wire.MarshalBundle(b))
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListDevices lists the device ids registered for a user.
// @Summary List a user's devices
// @Success 200 {object} api.OutputDevices
// @Failure 404 {object} api.ApiError "no devices"
// @Router /v1/keys/{user} [get]
func (a *KeysApi) ListDevices(c *gin.Context) {
	user, ok := a.user(c)
	if !ok {
		return
	}
	ids, err := a.bundles.Devices(c.Request.Context(), user)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputDevices{User: user, Devices: ids})
}

// UploadPreKeys adds one-time pre-keys to a device's pool, all or nothing.
// @Summary Upload one-time pre-keys
// @Success 200 {object} api.OutputPreKeyCount
// @Failure 404 {object} api.ApiError "device not found"
// @Failure 409 {object} api.ApiError "duplicate pre-key id"
// @Router /v1/keys/{user}/{device}/prekeys [post]
func (a *KeysApi) UploadPreKeys(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	var input InputUploadPreKeys
	if !a.bindJSON(c, &input) {
		return
	}
	n, err := a.registry.UploadPreKeys(c.Request.Context(), addr, preKeyRecords(input.PreKeys))
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputPreKeyCount{Count: n})
}

// RemovePreKey withdraws a single one-time pre-key.
// @Summary Remove a one-time pre-key
// @Success 200 {object} api.OutputStatus
// @Failure 404 {object} api.ApiError "device not found"
// @Router /v1/keys/{user}/{device}/prekeys/{id} [delete]
func (a *KeysApi) RemovePreKey(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	id, err := domain.ParsePreKeyID(c.Param("id"))
	if err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid pre-key id")
		return
	}
	if err := a.registry.RemovePreKey(c.Request.Context(), addr, id); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputStatus{Status: "removed"})
}

// PreKeyCount reports how many one-time pre-keys a device has left.
// @Summary Count one-time pre-keys
// @Success 200 {object} api.OutputPreKeyCount
// @Failure 404 {object} api.ApiError "device not found"
// @Router /v1/keys/{user}/{device}/prekeys/count [get]
func (a *KeysApi) PreKeyCount(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	n, err := a.registry.PreKeyCount(c.Request.Context(), addr)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputPreKeyCount{Count: n})
}

// RotateSignedPreKey replaces a device's signed pre-key.
// @Summary Rotate the signed pre-key
// @Success 200 {object} api.OutputStatus
// @Failure 400 {object} api.ApiError "invalid signature"
// @Failure 404 {object} api.ApiError "device not found"
// @Router /v1/keys/{user}/{device}/signed [put]
func (a *KeysApi) RotateSignedPreKey(c *gin.Context) {
	addr, ok := a.address(c)
	if !ok {
		return
	}
	var input InputSignedPreKey
	if !a.bindJSON(c, &input) {
		return
	}
	if err := a.registry.RotateSignedPreKey(c.Request.Context(), addr, input.record()); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputStatus{Status: "rotated"})
}
