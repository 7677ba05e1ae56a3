package service

import (
	"rescuebot/pkg/logger"
	"rescuebot/storage"
)

type IServiceManager interface {
	User() UserService
	Crew() CrewService
	Join() JoinService
}

type service struct {
	userService UserService
	crewService CrewService
	joinService JoinService
}

func New(stg storage.IStorage, log logger.ILogger) IServiceManager {
	return &service{
		userService: NewUserService(stg, log),
		crewService: NewCrewService(stg, log),
		joinService: NewJoinService(stg, log),
	}
}

func (s *service) User() UserService {
	return s.userService
}

func (s *service) Crew() CrewService {
	return s.crewService
}

func (s *service) Join() JoinService {
	return s.joinService
}
