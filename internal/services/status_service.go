package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/constants"
	"github.com/nearwave/location-agent/internal/models"
	"github.com/nearwave/location-agent/internal/status"
	"github.com/nearwave/location-agent/internal/utils"
	"github.com/nearwave/location-agent/pkg/identity"
	"github.com/nearwave/location-agent/pkg/mqtt"
)

// TrackingStatus reports whether position tracking is currently active.
type TrackingStatus interface {
	Tracking() bool
}

// StatusService periodically publishes an agent health snapshot over
// MQTT: tracking state plus the metrics gathered by the enabled
// collectors.
type StatusService struct {
	pubTopic     string
	interval     time.Duration
	timeout      time.Duration
	qos          int
	deviceInfo   identity.DeviceInfoInterface
	mqttClient   mqtt.MQTTClient
	tracking     TrackingStatus
	registry     *status.Registry
	statusConfig status.Config
	workerPool   *utils.WorkerPool
	logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes and returns a new instance of StatusService.
func NewStatusService(pubTopic string, interval, timeout time.Duration, qos int,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	tracking TrackingStatus, registry *status.Registry, statusConfig status.Config,
	logger zerolog.Logger) *StatusService {

	return &StatusService{
		pubTopic:     pubTopic,
		interval:     interval,
		timeout:      timeout,
		qos:          qos,
		deviceInfo:   deviceInfo,
		mqttClient:   mqttClient,
		tracking:     tracking,
		registry:     registry,
		statusConfig: statusConfig,
		workerPool:   utils.NewWorkerPool(4),
		logger:       logger,
	}
}

// Start launches the periodic status loop.
func (s *StatusService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	if len(s.registry.Enabled(s.statusConfig)) == 0 {
		s.logger.Warn().Msg("No status collectors enabled, reports will carry tracking state only")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop()
	}()

	s.logger.Info().Str("topic", s.pubTopic).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// runStatusLoop publishes one report per interval tick.
func (s *StatusService) runStatusLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report := s.collectReport()
			report.DeviceID = s.deviceInfo.GetDeviceID()

			if err := s.publishReport(report); err != nil {
				s.logger.Error().Err(err).Msg("Failed to publish status report")
			}

		case <-s.ctx.Done():
			s.logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

// collectReport gathers the enabled collectors concurrently into one
// status report.
func (s *StatusService) collectReport() models.StatusReport {
	report := models.StatusReport{
		Timestamp: time.Now().UTC(),
		Tracking:  s.tracking.Tracking(),
		Status:    constants.AgentStatusIdle,
	}
	if report.Tracking {
		report.Status = constants.AgentStatusActive
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, collector := range s.registry.Enabled(s.statusConfig) {
		wg.Add(1)
		s.workerPool.Submit(func() {
			defer wg.Done()

			value := collector.Collect(ctx)
			if value == nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			switch collector.Name() {
			case "cpu":
				report.CPUUsage = value
			case "memory":
				report.Memory = value
			case "uptime":
				report.UptimeSeconds = value
			case "goroutines":
				report.Goroutines = value
			}
		})
	}

	wg.Wait()
	return report
}

// publishReport sends one report to the status topic.
func (s *StatusService) publishReport(report models.StatusReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	token := s.mqttClient.Publish(s.pubTopic, byte(s.qos), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		return err
	}

	s.logger.Debug().Str("status", report.Status).Msg("Status report published")
	return nil
}
