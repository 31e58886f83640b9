package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLFeatures(t *testing.T) {
	f := ExtractURLFeatures("https://a.b.example.com/one/two?x=1&y=2")

	assert.Equal(t, 1.0, f.IsHTTPS)
	assert.Equal(t, 0.0, f.HasIP)
	assert.Equal(t, 2.0, f.SubdomainCount)
	assert.Equal(t, 2.0, f.PathDepth)
	assert.Equal(t, 2.0, f.QueryParams)

	ip := ExtractURLFeatures("http://192.168.1.1:8080/login")
	assert.Equal(t, 1.0, ip.HasIP)
	assert.Equal(t, 1.0, ip.HasPort)
	assert.Equal(t, 0.0, ip.IsHTTPS)

	garbage := ExtractURLFeatures("://nope")
	assert.Equal(t, 0.0, garbage.PathDepth)
	assert.Greater(t, garbage.Length, 0.0)
}

func TestExtractHTMLFeatures(t *testing.T) {
	page := `<html><body>
		<form action="/login">
			<input type="text" name="user">
			<input type="password" name="pass">
		</form>
		Please enter your password and credit card number.
		<a href="https://other.example.net/offer">offer</a>
		<a href="/local">local</a>
		<a href="https://shop.example.com/about">about</a>
	</body></html>`

	f := ExtractHTMLFeatures(page, "shop.example.com")

	assert.Equal(t, 1, f.FormCount)
	assert.Equal(t, 1, f.PasswordInputs)
	assert.True(t, f.HasLoginForm())
	assert.True(t, f.HasCredentialKeywords)
	assert.Equal(t, 3, f.LinkCount)
	assert.Equal(t, 1, f.ExternalLinks)
	assert.InDelta(t, 1.0/3.0, f.ExternalLinkRatio(), 0.001)
}

func TestExtractHTMLFeaturesPlainPage(t *testing.T) {
	f := ExtractHTMLFeatures("<p>Store hours: 9 to 5, Monday through Friday.</p>", "example.com")

	assert.False(t, f.HasLoginForm())
	assert.False(t, f.HasCredentialKeywords)
	assert.Zero(t, f.LinkCount)
}

func TestShannonEntropy(t *testing.T) {
	assert.Zero(t, shannonEntropy(""))
	assert.Zero(t, shannonEntropy("aaaa"))
	assert.Greater(t, shannonEntropy("x9k2q7vp1z"), shannonEntropy("bananabanana"))
}
