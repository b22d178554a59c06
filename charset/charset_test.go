package charset_test

import (
	"sync"
	"testing"

	"github.com/advdv/bfilter/charset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name  string
		query string
		exp   string
	}{
		{"empty", "", "UTF-8"},
		{"plain ascii", "a=1&b=2", "UTF-8"},
		{"enc hint", "a=1&enc=gbk", "GBK"},
		{"ie hint upper case", "IE=GBK&q=x", "GBK"},
		{"encoding hint gb2312", "q=1&encoding=gb2312", "GBK"},
		{"gb18030 hint", "q=1&enc=gb18030", "GB18030"},
		{"utf8 hint beats gbk bytes", "q=%C4%E3%BA%C3&ie=utf8", "UTF-8"},
		{"gbk hint beats utf8 bytes", "name=%E4%BD%A0%E5%A5%BD&enc=gbk", "GBK"},
		{"hint must be a whole word", "a=1&xenc=gbk", "UTF-8"},
		{"hint ignored in short query", "ie=gb", "UTF-8"},
		{"utf8 bytes", "name=%E4%BD%A0%E5%A5%BD", "UTF-8"},
		{"gbk bytes", "name=%C4%E3%BA%C3", "GBK"},
		{"gbk bytes lower case hex", "name=%c4%e3%ba%c3&p=2", "GBK"},
		{"truncated escape", "name=%E4%BD%A", "UTF-8"},
		{"trailing percent", "name=%C4%E3%", "UTF-8"},
		{"neither utf8 nor gbk", "name=%FF%FF", "UTF-8"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.exp, charset.ResolveQuery(tt.query).Name())
		})
	}
}

func TestResolveExplicitHint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, charset.GBK, charset.Resolve("name=%E4%BD%A0", "gbk"))
	assert.Equal(t, charset.UTF8, charset.Resolve("name=%E4%BD%A0", "no-such-charset"))
	assert.Equal(t, charset.GBK, charset.Resolve("name=%C4%E3", ""))
}

func TestHint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gbk", charset.Hint("a=1&enc=GBK"))
	assert.Equal(t, "utf-8", charset.Hint("q=x&ie=UTF-8"))
	assert.Empty(t, charset.Hint("a=1&enc=latin1"))
	assert.Empty(t, charset.Hint("ie=gbk"[:5]))
}

func TestProbe(t *testing.T) {
	t.Parallel()

	assert.True(t, charset.Probe("no escapes at all", charset.GBK))
	assert.True(t, charset.Probe("q=%E4%BD%A0", charset.UTF8))
	assert.False(t, charset.Probe("q=%C4%E3", charset.UTF8))
	assert.True(t, charset.Probe("q=%C4%E3", charset.GBK))
	assert.True(t, charset.Probe("q=%C4%", charset.UTF8))
	assert.True(t, charset.Probe("q=%E4%BD%A0你%E5%A5%BD", charset.UTF8))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	enc, err := charset.Lookup("utf8")
	require.NoError(t, err)
	assert.True(t, enc.IsUTF8())

	enc, err = charset.Lookup(" GB2312 ")
	require.NoError(t, err)
	assert.Equal(t, "GBK", enc.Name())

	enc, err = charset.Lookup("latin1")
	require.NoError(t, err)
	assert.Equal(t, "WINDOWS-1252", enc.Name())
	assert.True(t, enc.IsLatin1())

	enc, err = charset.Lookup("ISO-8859-1")
	require.NoError(t, err)
	assert.True(t, enc.IsLatin1())
	assert.False(t, charset.UTF8.IsLatin1())

	_, err = charset.Lookup("klingon")
	require.ErrorIs(t, err, charset.ErrUnsupportedEncoding)
	assert.Contains(t, err.Error(), `lookup "klingon"`)
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	s, err := charset.GBK.DecodeStrict([]byte{0xC4, 0xE3, 0xBA, 0xC3})
	require.NoError(t, err)
	assert.Equal(t, "你好", s)

	_, err = charset.UTF8.DecodeStrict([]byte{0xC4, 0xE3})
	require.Error(t, err)

	assert.Equal(t, "你好", charset.GBK.Decode([]byte{0xC4, 0xE3, 0xBA, 0xC3}))
}

func TestParams(t *testing.T) {
	t.Parallel()

	t.Run("gbk query", func(t *testing.T) {
		t.Parallel()

		params := charset.NewParams("q=%C4%E3%BA%C3&page=2&tag=a&tag=b")
		assert.False(t, params.Resolved())
		assert.Equal(t, "你好", params.Get("q"))
		assert.True(t, params.Resolved())
		assert.Equal(t, charset.GBK, params.Encoding())
		assert.Equal(t, "2", params.Get("page"))
		assert.Equal(t, []string{"a", "b"}, params.Values()["tag"])
		assert.True(t, params.Has("tag"))
		assert.False(t, params.Has("nope"))
		assert.Equal(t, "你好", params.Reparse("q"))
	})

	t.Run("utf8 query with plus", func(t *testing.T) {
		t.Parallel()

		params := charset.NewParams("name=%E4%BD%A0%E5%A5%BD+x&_traceId=abc")
		assert.Equal(t, "你好 x", params.Get("name"))
		assert.Equal(t, "abc", params.Get("_traceId"))
		assert.Equal(t, charset.UTF8, params.Encoding())
	})

	t.Run("malformed escape kept as written", func(t *testing.T) {
		t.Parallel()

		params := charset.NewParams("a=%zz&b=")
		assert.Equal(t, "%zz", params.Get("a"))
		assert.True(t, params.Has("b"))
		assert.Empty(t, params.Reparse("b"))
	})

	t.Run("values is a copy", func(t *testing.T) {
		t.Parallel()

		params := charset.NewParams("a=1")
		vals := params.Values()
		vals.Set("a", "2")
		assert.Equal(t, "1", params.Get("a"))
	})
}

func TestParamsConcurrentResolve(t *testing.T) {
	t.Parallel()

	params := charset.NewParams("q=%C4%E3%BA%C3")

	var wg sync.WaitGroup
	encs := make([]charset.Encoding, 32)
	for i := range encs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = params.Get("q")
			encs[i] = params.Encoding()
		}()
	}
	wg.Wait()

	for _, enc := range encs {
		assert.Equal(t, charset.GBK, enc)
	}
}

func TestRawValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "%C4%E3", charset.RawValue("a=1&q=%C4%E3&b=2", "q"))
	assert.Equal(t, "%C4%E3", charset.RawValue("q=%C4%E3", "q"))
	assert.Empty(t, charset.RawValue("xq=1", "q"))
	assert.Empty(t, charset.RawValue("", "q"))
}
