package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><script>var label = "统计信息";</script></head><body>
<div class="panel">
  <h3>统计信息</h3>
  <p>获取到的IP总数: 512 您的国家: US</p>
</div>
<div class="stats-box">
  <span>测试</span>
  <span>测试进度: 512/512 完成 有效IP 37</span>
</div>
<div id="ip-list">104.16.1.1:443#官方优选 83ms</div>
</body></html>`

func TestStats_FirstOwnTextMatch(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)

	text, ok := doc.Stats()
	require.True(t, ok)
	assert.Equal(t, "统计信息", text, "script bodies must not match and h3 precedes p")
}

func TestStats_Missing(t *testing.T) {
	doc, err := Parse(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)

	_, ok := doc.Stats()
	assert.False(t, ok)
}

func TestProgress_SkipsShortMatches(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)

	text, ok := doc.Progress()
	require.True(t, ok)
	assert.Equal(t, "测试进度: 512/512 完成 有效IP 37", text)
}

func TestProgress_ScopedFallback(t *testing.T) {
	doc, err := Parse(`<html><body>
<span>测试</span>
<div class="x-stats"><em>正在测试 128 个节点</em></div>
</body></html>`)
	require.NoError(t, err)

	text, ok := doc.Progress()
	require.True(t, ok)
	assert.Equal(t, "正在测试 128 个节点", text)
}

func TestFirst_OwnTextOnly(t *testing.T) {
	doc, err := Parse(`<html><body><div id="outer"><b>有效IP</b></div></body></html>`)
	require.NoError(t, err)

	text, ok, err := doc.First(Probe{Keywords: []string{"有效IP"}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "有效IP", text)
}

func TestFirst_BadScope(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)

	_, _, err = doc.First(Probe{Scope: "div[", Keywords: []string{"测试"}})
	assert.Error(t, err)
}
