package ingest_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/wattanaa/ecopoint/internal/ingest"
	"github.com/wattanaa/ecopoint/internal/models"
)

func TestParseCommand(t *testing.T) {
	convey.Convey("Given control subject payloads", t, func() {
		convey.Convey("When the payload is a valid start command", func() {
			id := uuid.New()
			data, _ := json.Marshal(ingest.ScanCommand{
				Action:     ingest.CommandStart,
				SessionID:  id,
				SourceURL:  "/dev/video0",
				SourceType: models.SourceTypeDevice,
				FPS:        5,
			})

			cmd, err := ingest.ParseCommand(data)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cmd.Action, convey.ShouldEqual, ingest.CommandStart)
			convey.So(cmd.SessionID, convey.ShouldResemble, id)
			convey.So(cmd.FPS, convey.ShouldEqual, 5)
		})

		convey.Convey("When the payload is a stop command", func() {
			data, _ := json.Marshal(ingest.ScanCommand{
				Action:    ingest.CommandStop,
				SessionID: uuid.New(),
			})

			_, err := ingest.ParseCommand(data)
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When the action is unknown", func() {
			data, _ := json.Marshal(ingest.ScanCommand{Action: "pause", SessionID: uuid.New()})

			_, err := ingest.ParseCommand(data)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the session id is missing", func() {
			data, _ := json.Marshal(ingest.ScanCommand{Action: ingest.CommandStart})

			_, err := ingest.ParseCommand(data)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the payload is not JSON", func() {
			_, err := ingest.ParseCommand([]byte("not json"))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestGuessSourceType(t *testing.T) {
	convey.Convey("Given source URLs", t, func() {
		convey.So(ingest.GuessSourceType("rtsp://cam.local/stream"), convey.ShouldEqual, models.SourceTypeRTSP)
		convey.So(ingest.GuessSourceType("https://cam.local/mjpeg"), convey.ShouldEqual, models.SourceTypeHTTP)
		convey.So(ingest.GuessSourceType("/dev/video0"), convey.ShouldEqual, models.SourceTypeDevice)
	})
}
