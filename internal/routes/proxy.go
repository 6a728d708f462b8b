package routes

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rm-hull/authfetch/internal"
)

var forwardedRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Authorization",
	"Content-Type",
	"If-Modified-Since",
	"If-None-Match",
}

var hopByHopHeaders = map[string]bool{
	"Connection":        true,
	"Content-Length":    true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

// Forward relays the incoming request to the backend through the
// authenticated client, so the browser never has to hold the credentials.
func Forward(client *internal.AuthClient) func(c *gin.Context) {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path += "?" + c.Request.URL.RawQuery
		}

		header := make(http.Header)
		for _, name := range forwardedRequestHeaders {
			if values := c.Request.Header.Values(name); len(values) > 0 {
				header[name] = append([]string(nil), values...)
			}
		}

		opts := internal.RequestOptions{Method: c.Request.Method, Header: header}
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			data, err := c.GetRawData()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
				return
			}
			if len(data) > 0 {
				opts.Body = data
			}
		}

		resp, err := client.Request(c.Request.Context(), path, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close upstream body")
			}
		}()

		for name, values := range resp.Header {
			if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
				continue
			}
			c.Writer.Header()[name] = values
		}
		c.Status(resp.StatusCode)
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to relay upstream body")
		}
	}
}

func respondError(c *gin.Context, err error) {
	if se, ok := internal.AsSessionExpired(err); ok {
		if wantsHTML(c) {
			c.Redirect(http.StatusFound, se.LoginPath)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired", "login": se.LoginPath})
		return
	}

	log.Error().Err(err).Msg("error while forwarding request")
	c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
