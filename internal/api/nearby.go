package api

import (
	"database/sql"
	"math"
	"net/http"
	"strconv"

	"github.com/erazemk/soseska/internal/geo"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

// NearbyHandler finds people close to a point.
type NearbyHandler struct {
	DB *sql.DB
}

type nearbyResponse struct {
	Users []model.Neighbor `json:"users"`
}

// List handles GET /api/users/nearby?lng=&lat=&radius=.
func (h *NearbyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		jsonError(w, http.StatusBadRequest, "longitude and latitude are required")
		return
	}

	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	center := model.Point{Lng: lng, Lat: lat}
	if errLng != nil || errLat != nil || !center.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	radius := float64(geo.DefaultRadius)
	if v := q.Get("radius"); v != "" {
		var err error
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(radius) || radius <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radius = min(radius, geo.MaxRadius)
	}

	candidates, err := store.ListUsersInBox(r.Context(), h.DB, geo.BoundingBox(center, radius),
		CurrentUser(r.Context()).ID)
	if err != nil {
		internalError(w, r, "searching nearby users", err)
		return
	}

	users := geo.Nearest(center, radius, candidates)
	if users == nil {
		users = []model.Neighbor{}
	}
	jsonResponse(w, http.StatusOK, nearbyResponse{Users: users})
}
