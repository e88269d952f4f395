// Package models defines the wire types exchanged with the TaskMaster REST API.
//
// The package contains three groups of types:
//
// 1. Resources returned by the API
//   - [Task] : a to-do item with priority, status, due date and nested subtasks
//   - [Subtask] : an ordered checklist entry belonging to a task
//   - [User] : the authenticated account returned by /auth/me/
//
// 2. Request payloads, each with a Validate method that runs before anything is sent
//   - [TaskInput], [TaskPatch], [RegisterRequest], [LoginRequest], [OrderItem]
//
// 3. Session and list plumbing
//   - [Session] : the persisted access/refresh token pair
//   - [TokenResponse] : the body of login, refresh and Google exchange responses
//   - [Page] : a list result that accepts both a bare array and a {count,next,previous,results} envelope
package models
