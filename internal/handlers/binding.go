package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators adds the decimal tags used by request bodies to gin's
// validator engine. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("decimal", decimalTag(func(decimal.Decimal) bool { return true }))
		_ = v.RegisterValidation("decimal_gt0", decimalTag(decimal.Decimal.IsPositive))
		_ = v.RegisterValidation("decimal_gte0", decimalTag(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	})
}

// decimalTag validates a string field holding a decimal number
func decimalTag(check func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		d, err := decimal.NewFromString(field.String())
		if err != nil {
			return false
		}
		return check(d)
	}
}

// BindNestedOrFlat binds the request body to obj and validates it.
// The body may wrap the object under key (e.g. {"plan": {...}}) or be the
// object itself.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
	}
	// Restore body for subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	payload := bodyBytes
	var nestedMap map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &nestedMap); err == nil {
		if val, ok := nestedMap[key]; ok {
			payload = val
		}
	}

	if err := json.Unmarshal(payload, obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
