package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizerDefaultsToChinese(t *testing.T) {
	l, err := NewLocalizer("fr")
	require.NoError(t, err)

	assert.Equal(t, "手机号格式不正确", l.Get(MsgPhoneInvalid, nil))
	assert.Equal(t, "网络错误: timeout", l.Get(MsgNetworkError, map[string]interface{}{"Detail": "timeout"}))
	assert.Equal(t, "📷 图片识别内容:\n明天开会", l.Get(MsgOCRDisplay, map[string]interface{}{"Text": "明天开会"}))
}

func TestLocalizerEnglish(t *testing.T) {
	l := MustNewLocalizer("en")
	assert.Equal(t, "Passwords do not match", l.Get(MsgPasswordMismatch, nil))
	assert.Equal(t, "请输入邮箱", l.GetIn("zh", MsgEmailRequired, nil))
}

func TestLocalizerUnknownMessage(t *testing.T) {
	l := MustNewLocalizer("zh")
	assert.Equal(t, "no_such_message", l.Get("no_such_message", nil))
}
