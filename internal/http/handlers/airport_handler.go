package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListAirports godoc
// @ID          listAirports
// @Summary     List airports
// @Description Returns the airport reference table ordered by ICAO code.
// @Tags        Airports
// @Produce     json
//
// @Success     200  {array}   domain.Airport
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /airports [get]
func (h *Handlers) ListAirports(c *gin.Context) {
	items, err := h.queries.Airports(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}
