package service

import (
	"errors"

	"quickplan-go/internal/api"
	"quickplan-go/internal/i18n"
)

// describeError 将错误转换为展示给用户的文案。
// success=false 使用服务器给出的原因，非 2xx 使用服务器原因或 "HTTP <code>"，
// 传输层错误为 "网络错误: ..."，其余使用 fallbackID 对应的文案。
func describeError(loc *i18n.Localizer, err error, fallbackID string) string {
	var (
		validationErr *ValidationError
		apiErr        *api.APIError
		statusErr     *api.StatusError
		transportErr  *api.TransportError
	)
	switch {
	case errors.As(err, &validationErr):
		return loc.Get(validationErr.MsgID, nil)
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
	case errors.As(err, &statusErr):
		if statusErr.Message != "" {
			return statusErr.Message
		}
		return loc.Get(i18n.MsgHTTPError, map[string]interface{}{"Code": statusErr.Code})
	case errors.As(err, &transportErr):
		return loc.Get(i18n.MsgNetworkError, map[string]interface{}{"Detail": transportErr.Err.Error()})
	}
	return loc.Get(fallbackID, nil)
}
