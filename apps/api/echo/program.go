package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ubora/core/program"
)

type programApi struct {
	svc      *program.Service
	validate *validator.Validate
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *program.Service, validate *validator.Validate) {
	api := programApi{svc: svc, validate: validate}

	pg := g.Group("/programs", jwt)
	pg.GET("", api.query, staffMiddleware())
	pg.POST("", api.create, adminMiddleware())
	pg.GET("/:id", api.retrieve, staffMiddleware())
	pg.POST("/:id/enrollments", api.enroll, adminMiddleware())
	pg.POST("/:id/coaches", api.assignCoach, adminMiddleware())
	pg.POST("/:id/instructors", api.assignInstructor, adminMiddleware())
}

func (api *programApi) create(ctx echo.Context) error {
	var data program.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	prog, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) query(ctx echo.Context) error {
	progs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if progs == nil {
		progs = []program.Program{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == program.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding program by ID")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), program.NewEnrollment{
		UserID:    data.UserID,
		ProgramID: ctx.Param("id"),
	})
	if err != nil {
		if errors.Cause(err) == program.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "enrolling user")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *programApi) assignCoach(ctx echo.Context) error {
	return api.assignStaff(ctx, api.svc.AssignCoach)
}

func (api *programApi) assignInstructor(ctx echo.Context) error {
	return api.assignStaff(ctx, api.svc.AssignInstructor)
}

func (api *programApi) assignStaff(
	ctx echo.Context,
	assign func(c context.Context, staffID, programID string) (program.StaffAssignment, error),
) error {
	var data AssignStaffRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignStaffRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == program.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding program by ID")
	}

	asg, err := assign(ctx.Request().Context(), data.StaffID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "assigning staff")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

type (
	EnrollRequest struct {
		UserID string `json:"user_id" validate:"required"`
	}

	AssignStaffRequest struct {
		StaffID string `json:"staff_id" validate:"required"`
	}
)
