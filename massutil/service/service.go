package service

import (
	"errors"
	"sync/atomic"

	"massnet.org/massdigest/logging"
)

var (
	ErrOperating = errors.New("service is operating")
	ErrStarted   = errors.New("service is started")
	ErrStopped   = errors.New("service is stopped")
)

// Service is a component with a start/stop lifecycle. Implementations embed
// *BaseService and provide OnStart/OnStop.
type Service interface {
	Start() error
	OnStart() error
	Stop() error
	OnStop() error
	Started() bool
	Name() string
}

type BaseService struct {
	service   Service
	started   int32
	operating int32
	name      string
}

func NewBaseService(service Service, name string) *BaseService {
	return &BaseService{
		service: service,
		name:    name,
	}
}

// transition runs fn while no other Start/Stop is in progress, provided
// the started flag currently equals from.
func (bs *BaseService) transition(from, to int32, busy error, fn func() error) error {
	if !atomic.CompareAndSwapInt32(&bs.operating, 0, 1) {
		return ErrOperating
	}
	defer atomic.StoreInt32(&bs.operating, 0)

	if atomic.LoadInt32(&bs.started) != from {
		return busy
	}
	if err := fn(); err != nil {
		return err
	}
	atomic.StoreInt32(&bs.started, to)
	return nil
}

func (bs *BaseService) Start() error {
	err := bs.transition(0, 1, ErrStarted, bs.service.OnStart)
	if err == nil {
		logging.CPrint(logging.INFO, "service started", logging.LogFormat{"name": bs.name})
	}
	return err
}

func (bs *BaseService) OnStart() error {
	return nil
}

func (bs *BaseService) Stop() error {
	err := bs.transition(1, 0, ErrStopped, bs.service.OnStop)
	if err == nil {
		logging.CPrint(logging.INFO, "service stopped", logging.LogFormat{"name": bs.name})
	}
	return err
}

func (bs *BaseService) OnStop() error {
	return nil
}

func (bs *BaseService) Started() bool {
	return atomic.LoadInt32(&bs.started) == 1
}

func (bs *BaseService) Name() string {
	return bs.name
}
