package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

const (
	flashTitleRequired = "Vul een titel in om een taak toe te voegen."
	errorStoreDown     = "De takenlijst is nu niet bereikbaar. Probeer het later opnieuw."
)

// CreateTaskRequest is the add form and the POST /api/tasks body.
type CreateTaskRequest struct {
	Title string `json:"title" form:"title" validate:"required"`
	Link  string `json:"link" form:"link"`
}

func (r *CreateTaskRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Link = strings.TrimSpace(r.Link)
}

// UpdateTaskRequest is the PATCH /api/tasks/:id body.
type UpdateTaskRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// TaskResponse is the JSON shape of a task.
type TaskResponse struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Link         string `json:"link,omitempty"`
	Completed    bool   `json:"completed"`
	Date         string `json:"date"`
	LastModified string `json:"last_modified,omitempty"`
}

func toResponse(task model.Task) TaskResponse {
	resp := TaskResponse{
		ID:        task.ID,
		Title:     task.Title,
		Link:      task.Link,
		Completed: task.Completed,
		Date:      task.Date,
	}
	if !task.LastModified.IsZero() {
		resp.LastModified = model.FormatTimestamp(task.LastModified)
	}
	return resp
}

type pageData struct {
	Today string
	Tasks []taskView
	Form  CreateTaskRequest
	Flash string
	Error string
}

type taskView struct {
	ID        int
	Title     string
	Link      string
	Completed bool
	Modified  string
}

func toView(task model.Task) taskView {
	view := taskView{
		ID:        task.ID,
		Title:     task.Title,
		Link:      task.Link,
		Completed: task.Completed,
	}
	if !task.LastModified.IsZero() {
		view.Modified = task.LastModified.Format(model.DateLayout)
	}
	return view
}

func (s *Server) indexPage(c echo.Context) error {
	return s.renderPage(c, http.StatusOK, pageData{})
}

// renderPage fills in today's tasks and renders the page. A failed read
// replaces the list with an error notice and a 502.
func (s *Server) renderPage(c echo.Context, status int, data pageData) error {
	data.Today = s.tasks.Today()

	tasks, err := s.tasks.FetchToday(c.Request().Context())
	if err != nil {
		s.log.WithError(err).Error("fetch today")
		data.Error = errorStoreDown
		return c.Render(http.StatusBadGateway, "index.html", data)
	}

	data.Tasks = make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		data.Tasks = append(data.Tasks, toView(task))
	}
	return c.Render(status, "index.html", data)
}

func (s *Server) storeDown(c echo.Context, err error) error {
	s.log.WithError(err).Errorw("task store call failed", "path", c.Request().URL.Path)
	return c.Render(http.StatusBadGateway, "index.html", pageData{
		Today: s.tasks.Today(),
		Error: errorStoreDown,
	})
}

func (s *Server) createFromForm(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return s.renderPage(c, http.StatusBadRequest, pageData{Flash: flashTitleRequired})
	}
	req.normalize()

	if err := c.Validate(&req); err != nil {
		return s.renderPage(c, http.StatusBadRequest, pageData{Form: req, Flash: flashTitleRequired})
	}

	if _, err := s.tasks.CreateTask(c.Request().Context(), req.Title, req.Link); err != nil {
		if errors.Is(err, service.ErrTitleRequired) {
			return s.renderPage(c, http.StatusBadRequest, pageData{Form: req, Flash: flashTitleRequired})
		}
		return s.storeDown(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) completeFromForm(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	completed, err := strconv.ParseBool(c.FormValue("completed"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "completed must be true or false")
	}

	if err := s.tasks.SetCompleted(c.Request().Context(), id, completed); err != nil {
		return s.storeDown(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteFromForm(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := s.tasks.SoftDelete(c.Request().Context(), id); err != nil {
		return s.storeDown(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.tasks.FetchToday(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, toResponse(task))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) createTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	req.normalize()

	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := s.tasks.CreateTask(c.Request().Context(), req.Title, req.Link)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toResponse(*task))
}

func (s *Server) updateTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := s.tasks.SetCompleted(c.Request().Context(), id, *req.Completed); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := s.tasks.SoftDelete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func taskID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return id, nil
}
