// Package metrics computes the rolling-window dashboard figures. Every
// function degrades to a neutral default on internal failure instead of
// propagating, so one broken metric never takes down a dashboard request.
// The window sample size is reported alongside each value so "no data" is
// distinguishable from genuinely perfect performance.
package metrics

import (
	"math"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ethiobus/internal/models"
)

// Departures within this tolerance of the timetable count as on time.
const onTimeTolerance = 5 * time.Minute

// Windowed is a metric value plus the number of schedules it was computed
// over.
type Windowed struct {
	Value      int `json:"value"`
	SampleSize int `json:"sampleSize"`
}

type departurePair struct {
	DepartureTime       time.Time
	ActualDepartureTime *time.Time
}

func completedDepartures(db *gorm.DB, since time.Time, driverID uint) ([]departurePair, error) {
	q := db.Model(&models.Schedule{}).
		Select("departure_time", "actual_departure_time").
		Where("status = ?", models.ScheduleCompleted).
		Where("actual_departure_time IS NOT NULL").
		Where("created_at >= ?", since)
	if driverID != 0 {
		q = q.Where("driver_id = ?", driverID)
	}

	var pairs []departurePair
	if err := q.Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

func onTimeRate(db *gorm.DB, window time.Duration, driverID uint) Windowed {
	pairs, err := completedDepartures(db, time.Now().Add(-window), driverID)
	if err != nil {
		logrus.WithError(err).Error("on-time performance query failed")
		return Windowed{Value: 100}
	}
	if len(pairs) == 0 {
		// No data is reported as fully on time, matching the dashboard
		// contract. SampleSize zero tells the caller it is a default.
		return Windowed{Value: 100}
	}

	onTime := 0
	for _, p := range pairs {
		if p.ActualDepartureTime.Sub(p.DepartureTime) <= onTimeTolerance {
			onTime++
		}
	}
	return Windowed{
		Value:      int(math.Round(float64(onTime) / float64(len(pairs)) * 100)),
		SampleSize: len(pairs),
	}
}

// OnTimePerformance is the percentage of completed schedules over the
// trailing 7 days that departed within the tolerance.
func OnTimePerformance(db *gorm.DB) Windowed {
	return onTimeRate(db, 7*24*time.Hour, 0)
}

// DriverOnTimePerformance is the on-time percentage for one driver over the
// trailing 30 days.
func DriverOnTimePerformance(db *gorm.DB, driverID uint) Windowed {
	return onTimeRate(db, 30*24*time.Hour, driverID)
}

// AverageDelay is the mean departure delay in minutes over completed
// schedules in the trailing 7 days. Early departures count as zero delay.
func AverageDelay(db *gorm.DB) Windowed {
	pairs, err := completedDepartures(db, time.Now().Add(-7*24*time.Hour), 0)
	if err != nil {
		logrus.WithError(err).Error("average delay query failed")
		return Windowed{}
	}
	if len(pairs) == 0 {
		return Windowed{}
	}

	var sum float64
	for _, p := range pairs {
		delay := p.ActualDepartureTime.Sub(p.DepartureTime).Minutes()
		if delay > 0 {
			sum += delay
		}
	}
	return Windowed{
		Value:      int(math.Round(sum / float64(len(pairs)))),
		SampleSize: len(pairs),
	}
}

// TotalPassengersToday sums passenger counts over schedules departing since
// the start of the current local day.
func TotalPassengersToday(db *gorm.DB) int {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var total int64
	err := db.Model(&models.Schedule{}).
		Where("departure_time >= ?", startOfDay).
		Select("COALESCE(SUM(passenger_count), 0)").
		Scan(&total).Error
	if err != nil {
		logrus.WithError(err).Error("total passengers query failed")
		return 0
	}
	return int(total)
}

// DriverTotalPassengers sums passenger counts over a driver's completed
// schedules.
func DriverTotalPassengers(db *gorm.DB, driverID uint) int {
	var total int64
	err := db.Model(&models.Schedule{}).
		Where("driver_id = ? AND status = ?", driverID, models.ScheduleCompleted).
		Select("COALESCE(SUM(passenger_count), 0)").
		Scan(&total).Error
	if err != nil {
		logrus.WithError(err).Error("driver passengers query failed")
		return 0
	}
	return int(total)
}
