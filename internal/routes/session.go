package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rm-hull/authfetch/internal"
	"github.com/rm-hull/authfetch/internal/models"
)

func SessionStatus(store internal.SessionStore) func(c *gin.Context) {
	return func(c *gin.Context) {
		status, err := internal.GetSessionStatus(c.Request.Context(), store)
		if err != nil {
			log.Error().Err(err).Msg("error while reading session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// StoreSession accepts the credential pair produced by the external login flow.
func StoreSession(store internal.SessionStore) func(c *gin.Context) {
	return func(c *gin.Context) {
		var creds models.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := internal.SaveSession(c.Request.Context(), store, creds.Access, creds.Refresh); err != nil {
			log.Error().Err(err).Msg("error while storing session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func ClearSession(store internal.SessionStore) func(c *gin.Context) {
	return func(c *gin.Context) {
		if err := internal.ClearSession(c.Request.Context(), store); err != nil {
			log.Error().Err(err).Msg("error while clearing session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
