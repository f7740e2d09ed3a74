package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/api/handlers"
	"github.com/wattanaa/ecopoint/internal/models"
	"github.com/wattanaa/ecopoint/internal/storage"
)

func newRewardRouter(store *storage.MemoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRewardHandler(store)
	r := gin.New()
	r.GET("/rewards", h.List)
	r.GET("/rewards/:id", h.Get)
	r.POST("/rewards", h.Create)
	r.PUT("/rewards/:id", h.Update)
	r.DELETE("/rewards/:id", h.Delete)
	return r
}

func TestRewardHandler(t *testing.T) {
	convey.Convey("Given a reward catalog over an empty store", t, func() {
		store := storage.NewMemoryStore()
		router := newRewardRouter(store)

		body := `{"name":"Free Coffee","description":"One hot drink","cost":150,"icon":"Coffee"}`

		convey.Convey("Creating a reward returns 201 with a server-assigned id", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/rewards", strings.NewReader(body))
			router.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			var created models.Reward
			convey.So(json.Unmarshal(w.Body.Bytes(), &created), convey.ShouldBeNil)
			convey.So(created.ID, convey.ShouldNotResemble, uuid.Nil)
			convey.So(created.Cost, convey.ShouldEqual, 150)

			convey.Convey("And the reward can then be updated in place", func() {
				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodPut, "/rewards/"+created.ID.String(),
					strings.NewReader(`{"name":"Free Coffee","cost":120,"icon":"Coffee"}`))
				router.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var updated models.Reward
				convey.So(json.Unmarshal(w.Body.Bytes(), &updated), convey.ShouldBeNil)
				convey.So(updated.ID, convey.ShouldResemble, created.ID)
				convey.So(updated.Cost, convey.ShouldEqual, 120)
			})

			convey.Convey("And deleting it returns 204", func() {
				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodDelete, "/rewards/"+created.ID.String(), nil)
				router.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusNoContent)
			})
		})

		convey.Convey("Updating a reward that does not exist returns 404", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/rewards/"+uuid.NewString(), strings.NewReader(body))
			router.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Deleting a reward that does not exist returns 404", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodDelete, "/rewards/"+uuid.NewString(), nil)
			router.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("A reward with an unknown icon is rejected with 400", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/rewards",
				strings.NewReader(`{"name":"Mystery","cost":10,"icon":"Rocket"}`))
			router.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}
